// Package models defines the client-side domain records for Spendsync.
//
// # Records
//
// The following records mirror the backend's JSON payloads:
//   - User, Profile: the authenticated account and its extended fields
//   - Expense: a single recorded expense, identified by a backend-assigned ID
//   - DashboardStats, CategoryBreakdown, TrendPoint: read-only aggregates
//   - ChatMessage, Insight, ReceiptScan, Prediction: assistant output
//
// # Input Types
//
// User input enters through ExpenseInput, ExpensePatch and ProfilePatch.
// These are validated on the client before anything is sent; failures are
// reported as *ValidationError and never reach the network.
//
// # Design Principles
//
// 1. **Backend owns identity**: the client never invents expense IDs
// 2. **Forward compatibility**: unknown categories and payment methods from
// the server are kept verbatim instead of being rejected
// 3. **Exact money**: amounts are decimals, never binary floats
// 4. **Snapshots**: every record has a Clone (or is a plain value) so stores
// can hand out copies that never alias their internal state
package models
