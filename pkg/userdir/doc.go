// Package userdir manages the accounts of people operating the system:
// creation, lookup and password authentication. It is deliberately
// separate from pkg/store, which deals in marketplace accounts.
package userdir
