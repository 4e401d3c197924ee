// Package config loads, normalizes, and validates yoloprep configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// AZURE_STORAGE_CONNECTION_STRING and GOOGLE_APPLICATION_CREDENTIALS. A .env
// file in the working directory is loaded first so credentials can live next
// to a dataset checkout.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
