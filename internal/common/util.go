package common

// WipeByteArray overwrites the contents of the provided byte slice with zeros.
// Passwords read from the terminal are wiped as soon as the request body
// has been built.
//
// If the slice is nil, the function does nothing.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// IsTokenExpiredMessage reports whether msg is one of the server messages
// that signal an expired access token.
func IsTokenExpiredMessage(msg string) bool {
	for _, m := range TokenExpiredMessages {
		if m == msg {
			return true
		}
	}
	return false
}
