// The main package for the listing-scraper executable.
package main

import (
	"github.com/JakeFAU/listing-scraper/cmd"
)

func main() {
	cmd.Execute()
}
