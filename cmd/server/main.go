package main

import "pinboard-backend/internal/app"

func main() {
	app.Run()
}
