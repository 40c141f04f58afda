package atom

import (
	"fmt"
	"math"
	"unsafe"
)

// recordHeader is the fixed-size front of a record. The string payload of
// exactly key.Length bytes starts immediately after it in the same block.
//
//	+-----------------+----------------------+-----+
//	| key (Digest,Len)| payload bytes        | pad |
//	+-----------------+----------------------+-----+
//	0            headerSize        headerSize+Length   size
//
// A record is written once by allocRecord and never mutated or freed.
type recordHeader struct {
	key Key
}

const wordSize = unsafe.Sizeof(uint64(0))

var (
	headerSize  = unsafe.Sizeof(recordHeader{})
	headerAlign = unsafe.Alignof(recordHeader{})

	// maxPayload keeps size arithmetic in layoutFor from overflowing.
	maxPayload = uintptr(math.MaxInt) - headerSize - wordSize
)

// layoutFor returns the size and alignment of a record holding length payload
// bytes: the header, the payload at byte alignment, and trailing padding up to
// the header's alignment.
func layoutFor(length int) (size, align uintptr) {
	if length < 0 || uintptr(length) > maxPayload {
		panic(fmt.Sprintf("atom: record payload length %d out of range", length))
	}
	align = headerAlign
	size = headerSize + uintptr(length)
	size = (size + align - 1) &^ (align - 1)
	return size, align
}

// allocRecord allocates one block for s, writes the header and copies the
// payload in. The block is backed by []uint64 so its base address satisfies
// the header alignment, and it holds no pointers, so the collector never scans
// the payload. Memory exhaustion aborts the process inside the runtime; there
// is no recoverable failure.
func allocRecord(s string, key Key) (rec *recordHeader, blockBytes uintptr) {
	size, _ := layoutFor(len(s))
	words := make([]uint64, (size+wordSize-1)/wordSize)

	// Header-only view first; the payload is addressed once the length is set.
	rec = (*recordHeader)(unsafe.Pointer(unsafe.SliceData(words)))
	rec.key = key
	copy(rec.payload(), s)

	return rec, uintptr(len(words)) * wordSize
}

// payload is the writable view used during initialization only.
func (h *recordHeader) payload() []byte {
	if h.key.Length == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(h.payloadPtr()), h.key.Length)
}

// content is the read-only string view of the payload. It aliases the record
// and stays valid for the life of the process.
func (h *recordHeader) content() string {
	if h.key.Length == 0 {
		return ""
	}
	return unsafe.String((*byte)(h.payloadPtr()), h.key.Length)
}

func (h *recordHeader) payloadPtr() unsafe.Pointer {
	return unsafe.Add(unsafe.Pointer(h), headerSize)
}
