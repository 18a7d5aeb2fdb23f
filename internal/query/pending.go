package query

// Pending is a statement in flight. Await blocks until it resolves.
type Pending struct {
	done     chan struct{}
	rows     []Row
	err      error
	panicked any
}

func newPending() *Pending {
	return &Pending{done: make(chan struct{})}
}

// Completed returns a Pending that is already resolved.
func Completed(rows []Row, err error) *Pending {
	p := newPending()
	p.resolve(rows, err)
	return p
}

// Done is closed once the statement has finished.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Await waits for the statement and returns its rows or its failure.
// A panic raised while running the statement is re-raised here, on the
// awaiting goroutine.
func (p *Pending) Await() ([]Row, error) {
	<-p.done
	if p.panicked != nil {
		panic(p.panicked)
	}
	return p.rows, p.err
}

func (p *Pending) resolve(rows []Row, err error) {
	p.rows = rows
	p.err = err
	close(p.done)
}

func (p *Pending) fail(v any) {
	p.panicked = v
	close(p.done)
}
