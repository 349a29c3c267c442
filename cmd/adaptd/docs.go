package main

// General API documentation for swaggo. Run `make swagger-gen` to generate docs.
//
// @title           adaptd API
// @version         1.0
// @description     HTTP API for hardware-adaptive text analysis with automatic model fallback.
//
// @contact.name   adaptd maintainers
// @contact.url    https://github.com/your-org/adaptd
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
