// Package taxlot tracks the tax lots of securities and computes the tax
// consequences of selling them.
//
// The core functionalities include:
//   - Tax Lot Ledger: lots created from acquisitions, their holding period,
//     and a Ledger applying accepted sales.
//   - Lot Selection: ordering the open lots of a position for a sale under
//     FIFO, LIFO, HIFO or specific identification.
//   - Sale Disposition: allocating a sale to lots and computing the realized
//     gain or loss per lot, split into short and long term.
//   - Wash-Sale Detection: scanning the history of every account, including
//     tax-advantaged ones, for substantially identical purchases within 30
//     days of a loss sale, disallowing the loss and stepping up the basis of
//     the replacement shares.
//   - Harvest Scanning: finding the holdings of taxable accounts whose loss
//     is worth realizing, with their wash-sale risk and substitutes.
//
// Calculations are pure: they work on in-memory lots, transactions and
// prices supplied by the caller and never modify them.
//
// This package serves as the foundational logic for the `tlx` command-line
// tool.
package taxlot
