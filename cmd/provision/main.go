package main

import (
	provision "github.com/platewire/boardgate/internal/cmd/provision"
)

func main() {
	provision.Execute()
}
