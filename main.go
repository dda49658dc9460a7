package main

import "github.com/kris-hansen/recipeforge/cmd"

func main() {
	cmd.Execute()
}
