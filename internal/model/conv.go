package model

// Itoa is a minimal int-to-string converter used when building cache and
// result keys.
func Itoa(n int) string {
	return Itoa64(int64(n))
}

// Itoa64 is the int64 form of Itoa.
func Itoa64(n int64) string {
	if n == 0 {
		return "0"
	}
	buf := [20]byte{}
	i := len(buf)
	neg := n < 0
	if neg {
		n = -n
	}
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
