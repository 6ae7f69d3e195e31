package main

import "AlbumShelf/cmd"

func main() {
	cmd.Execute()
}
