// Package cart synchronizes the shopping cart between the server and the
// client.
//
// The server cart is authoritative. Every successful read is mirrored into a
// local kvstore entry, which is displayed when the server cannot be reached
// and overwritten wholesale by the next successful read.
//
// Prices are computed in integer cents: a line costs its variant price when
// the variant has one, the product price otherwise, times its quantity.
package cart
