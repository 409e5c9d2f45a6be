/*
 * rttape - hex formatting for verbose capture tracing.
 *
 * Copyright 2024, Richard Cornwell
 * Copyright 2026, ACMS (Australia Computer Museum Society)
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

// Package hexdump formats bytes and words as hex for verbose capture
// tracing; it is not a general-purpose dump tool.
package hexdump

import "strings"

var hexMap = "0123456789ABCDEF"

// FormatWord appends word as 8 uppercase hex digits, e.g. "0001A3FF".
func FormatWord(str *strings.Builder, word uint32) {
	shift := 28
	for range 8 {
		str.WriteByte(hexMap[(word>>shift)&0xf])
		shift -= 4
	}
}

// FormatByte appends b as 2 uppercase hex digits.
func FormatByte(str *strings.Builder, b byte) {
	str.WriteByte(hexMap[(b>>4)&0xf])
	str.WriteByte(hexMap[b&0xf])
}

// FormatBytes appends data as space-separated hex byte pairs, truncating
// to at most max bytes and appending "..." if data was longer. max <= 0
// means unlimited.
func FormatBytes(str *strings.Builder, data []byte, max int) {
	n := len(data)
	truncated := false
	if max > 0 && n > max {
		n = max
		truncated = true
	}
	for i := 0; i < n; i++ {
		if i > 0 {
			str.WriteByte(' ')
		}
		FormatByte(str, data[i])
	}
	if truncated {
		str.WriteString(" ...")
	}
}

// Preview renders up to max bytes of data as a hex string suitable for a
// single log line.
func Preview(data []byte, max int) string {
	var b strings.Builder
	FormatBytes(&b, data, max)
	return b.String()
}

// Word renders word as 8 hex digits.
func Word(word uint32) string {
	var b strings.Builder
	FormatWord(&b, word)
	return b.String()
}
