package main

import "github.com/lexcodex/reagent/app/cmd"

func main() {
	cmd.Execute()
}
