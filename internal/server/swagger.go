package server

//go:generate swag init -g internal/server/server.go -o internal/server/docs

// @title a11ylens API
// @version 0.1
// @description Drive accessibility scans of a live page, highlight flagged elements and browse scan history.
// @contact.name a11ylens maintainers
// @contact.url https://github.com/raysh454/a11ylens
// @BasePath /
