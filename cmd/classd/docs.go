package main

// General API documentation for swaggo. Run `make swagger-gen` to generate docs.
//
// @title           classd API
// @version         1.0
// @description     HTTP API for batch text classification over rule-based and learned analyzers.
//
// @contact.name   classd maintainers
// @contact.url    https://github.com/your-org/classd
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
