// Package testsupport holds fixture and golden-file helpers shared by
// package tests.
package testsupport
