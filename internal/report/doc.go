// Package report renders the ledger's query surface for people: a Markdown
// business report with CSV extracts, restock recommendations, and terminal
// rendering through glamour.
//
// Tables keep raw values; formatting (thousands separators, two-decimal
// floats) happens only when a table is rendered as Markdown.
package report
