package main

import "github.com/griffgriff5000/Spotlight-on-Outlook/cmd"

func main() {
	cmd.Execute()
}
