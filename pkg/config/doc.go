// Package config loads environment-driven configuration structs.
//
// Every meterkit component exposes a Config struct tagged for
// github.com/caarlos0/env (pg.Config, payment.StripeConfig, usage.Config, ...).
// Load fills such a struct from the process environment after merging any
// .env files found with github.com/joho/godotenv:
//
//	var cfg pg.Config
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
//
// Variables already present in the environment win over .env values. A
// missing .env file is not an error; a malformed one is.
package config
