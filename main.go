package main

import "github.com/user/markhub/cmd"

func main() {
	cmd.Execute()
}
