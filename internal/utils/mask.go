package utils

// MaskSecret keeps a short prefix of s so tokens can be told apart in logs.
func MaskSecret(s string) string {
	switch {
	case s == "":
		return ""
	case len(s) <= 8:
		return "****"
	default:
		return s[:4] + "****"
	}
}
