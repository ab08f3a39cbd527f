// Package auth provides authentication for the portero gateway.
//
// It implements a 2-tier role model (operator → admin) with:
//   - Argon2id password hashing (OWASP 2025 recommendation)
//   - Short-lived JWT access tokens validated by signature only
//   - SQLite-backed user accounts
//   - First-boot admin seeding with a generated password
//
// Operators can watch cameras, read notifications, and switch relays.
// Admins additionally manage accounts. Edge devices (doorbells, relay
// controllers) are not accounts; they live on the trusted installation
// network and their ingestion endpoints are unauthenticated.
package auth
