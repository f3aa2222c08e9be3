package main

import "github.com/repotrends/repotrends/cmd"

func main() {
	cmd.Execute()
}
