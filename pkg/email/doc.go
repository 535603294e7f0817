// Package email delivers purchase receipts.
//
// Sender is the transport: PostmarkClient in production and LogSender when no
// Postmark token is configured. Receipts renders a ReceiptData into HTML and
// hands it to the Sender; it satisfies the purchase verifier's receipt hook.
package email
