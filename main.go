package main

import "cleancity-backend/cmd"

func main() {
	cmd.Run()
}
