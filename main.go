package main

import "github.com/eportal/backend/cmd"

func main() {
	cmd.Execute()
}
