// Package config loads application configuration from environment variables
// (optionally seeded from .env files via godotenv) into tagged structs using
// caarlos0/env. Parsed values are cached per struct type.
package config
