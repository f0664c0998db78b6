package cache

// Flush waits for buffered Ristretto writes; a no-op for other backends.
func Flush(c Cache) {
	if r, ok := c.(*ristrettoCache); ok {
		r.Wait()
	}
}
