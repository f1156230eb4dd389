package document

// Chunk partitions text left to right into pieces of at most size characters.
// Concatenating the result reproduces text byte for byte.
func Chunk(text string, size int) []string {
	if text == "" || size <= 0 {
		return nil
	}

	var chunks []string
	start, count := 0, 0

	for i := range text {
		if count == size {
			chunks = append(chunks, text[start:i])
			start, count = i, 0
		}
		count++
	}

	return append(chunks, text[start:])
}
