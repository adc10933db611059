// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

Load an optional .env file, then parse flags:

	_ = cliparse.LoadDotEnv(".env")
	cfg, err := cliparse.ParseFlags(os.Args[1:])

# Config Fields

  - Port: Server listen port (default: 3318)
  - DatabaseURL: connection string (required)
  - DatabaseType: sqlite or postgres (default: sqlite)
  - AdminEmail: the only account allowed to use admin routes (required)
  - AdminKeySalt: Secret for admin key HMAC (required)
  - VoterTokenSalt: Secret for voter token HMAC (required)
  - LogLevel, LogFormat: slog level and handler (default: info, text)
  - FeedPollInterval: sqlite change feed interval (default: 2s)
  - BallotRate, BallotBurst: per-IP ballot rate limit (default: 0.5/s, 5)
  - TrustProxy: key rate limits on X-Forwarded-For (default: false)

# Environment Variables

Flags fall back to environment variables:

	PORT               → -p
	DATABASE_URL       → -d
	DATABASE_TYPE      → -t
	ADMIN_EMAIL        → --admin-email
	ADMIN_KEY_SALT     → --admin-salt
	VOTER_TOKEN_SALT   → --voter-salt
	LOG_LEVEL          → --log-level
	LOG_FORMAT         → --log-format
	FEED_POLL_INTERVAL → --poll-interval
	TRUST_PROXY        → --trust-proxy
	BALLOT_RATE, BALLOT_BURST (env only)

CLI flags take precedence over environment variables, and variables already
in the environment take precedence over .env files.
*/
package cliparse
