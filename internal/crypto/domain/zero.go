package domain

// Zero overwrites a byte slice with zeros to clear key material and decrypted
// values from memory. Callers holding a Plaintext or data key must Zero it as
// soon as it has been used.
func Zero(b []byte) {
	clear(b)
}
