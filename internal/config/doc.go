// Package config populates the process environment before flags are
// parsed: first from an optional AWS Secrets Manager JSON secret, then from
// a local .env file. Values already present in the environment win unless
// AWS_SECRETS_MANAGER_OVERWRITE=true.
package config
