package search

const frontierChunk = 4096

type frontierBlock struct {
	nodes [frontierChunk]*Node
	next  *frontierBlock
}

// frontier is a FIFO queue of nodes stored in fixed-size blocks. Consumed
// blocks are released as the head advances, so a frontier holding millions
// of nodes never keeps a dead prefix alive the way a resliced slice would.
type frontier struct {
	head, tail *frontierBlock
	headPos    int
	tailPos    int
	n          int
	spare      *frontierBlock
}

func (f *frontier) Len() int {
	return f.n
}

func (f *frontier) Push(node *Node) {
	if f.tail == nil || f.tailPos == frontierChunk {
		b := f.spare
		f.spare = nil
		if b == nil {
			b = new(frontierBlock)
		}
		if f.tail == nil {
			f.head = b
			f.headPos = 0
		} else {
			f.tail.next = b
		}
		f.tail = b
		f.tailPos = 0
	}
	f.tail.nodes[f.tailPos] = node
	f.tailPos++
	f.n++
}

// Peek returns the oldest node without removing it, or nil when empty.
func (f *frontier) Peek() *Node {
	if f.n == 0 {
		return nil
	}
	return f.head.nodes[f.headPos]
}

// Pop removes and returns the oldest node, or nil when empty.
func (f *frontier) Pop() *Node {
	if f.n == 0 {
		return nil
	}
	node := f.head.nodes[f.headPos]
	f.head.nodes[f.headPos] = nil
	f.headPos++
	f.n--

	switch {
	case f.headPos == frontierChunk:
		done := f.head
		f.head = done.next
		f.headPos = 0
		if f.head == nil {
			f.tail = nil
			f.tailPos = 0
		}
		done.next = nil
		f.spare = done
	case f.n == 0:
		// head == tail: rewind and reuse the block.
		f.headPos = 0
		f.tailPos = 0
	}
	return node
}
