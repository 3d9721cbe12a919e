package util

// MaskCode redacts the tail of a share code for logging.
func MaskCode(code string) string {
	if len(code) <= 3 {
		return "***"
	}
	return code[:3] + "***"
}
