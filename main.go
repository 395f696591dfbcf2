package main

import "github.com/versekeeper/versekeeper/cmd"

func main() {
	cmd.Execute()
}
