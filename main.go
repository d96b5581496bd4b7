package main

import "github.com/my-other-app/moa-backend/cmd"

func main() {
	cmd.Execute()
}
