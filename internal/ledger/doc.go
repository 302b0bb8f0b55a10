// Package ledger provides SQLite-backed storage for merchant sales, purchases
// and the mail ingest records that link each source artifact to them.
//
// The ledger holds:
//   - Customers: buyers by display name, with running spend aggregates
//   - Sales: items sold by the operator's vendors
//   - Purchases: items the operator bought at auction
//   - Mail Ingests: one row per artifact path, linked to exactly one sale or purchase
//   - Ingest Runs: bookkeeping for each ingestion pass
//
// # Invariants
//
// Exclusive linkage: an ingest record references exactly one terminal row.
// Enforced by a CHECK constraint and validated in Go before any write.
//
// Idempotence: file_path and mail_id are UNIQUE. Callers look records up
// with FindIngest before inserting.
//
// Aggregate consistency: customers.total_spent and total_purchases equal the
// sum and count of the customer's sales. InsertSale increments them and Purge
// takes a purged sale back out before deleting it.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Cascades from sales and purchases to mail_ingests
//
// Dates are stored as "YYYY-MM-DD HH:MM:SS" text in UTC so that lexical
// comparison matches chronological order.
package ledger
