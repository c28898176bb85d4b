package circuitbreaker

// HoldLock takes the state lock until the returned func is called.
func HoldLock(e *Engine) func() {
	e.lock.TryAcquire(1)
	return func() { e.lock.Release(1) }
}
