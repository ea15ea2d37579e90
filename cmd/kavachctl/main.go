package main

import "github.com/safar/kavach-store/internal/cmd"

func main() {
	cmd.Execute()
}
