package bot

import "unicode/utf16"

func encodeUTF16(s string) []uint16 {
	return utf16.Encode([]rune(s))
}

func decodeUTF16(units []uint16) string {
	return string(utf16.Decode(units))
}
