package treesync

// Direction is the way bytes flow in a transfer.
type Direction string

const (
	Upload   Direction = "upload"
	Download Direction = "download"
)

// Transfer records one leaf file copy.
type Transfer struct {
	Direction   Direction `json:"direction"`
	Source      string    `json:"source"`
	Destination string    `json:"destination"`
	Bytes       int64     `json:"bytes"`
}

// Report collects what a single Fetch, Push or their single-file variants
// did. On error it holds everything completed before the failure.
type Report struct {
	Transfers   []Transfer `json:"transfers"`
	CreatedDirs []string   `json:"created_dirs,omitempty"`
	Skipped     []string   `json:"skipped,omitempty"`
}

// Files returns the number of leaf transfers.
func (r *Report) Files() int {
	return len(r.Transfers)
}

// Bytes returns the total bytes copied.
func (r *Report) Bytes() int64 {
	var n int64
	for _, t := range r.Transfers {
		n += t.Bytes
	}
	return n
}

// Merge appends other's records to r.
func (r *Report) Merge(other *Report) {
	if other == nil {
		return
	}
	r.Transfers = append(r.Transfers, other.Transfers...)
	r.CreatedDirs = append(r.CreatedDirs, other.CreatedDirs...)
	r.Skipped = append(r.Skipped, other.Skipped...)
}

func (r *Report) transfer(dir Direction, src, dst string, n int64) {
	r.Transfers = append(r.Transfers, Transfer{Direction: dir, Source: src, Destination: dst, Bytes: n})
}

func (r *Report) created(dir string) {
	r.CreatedDirs = append(r.CreatedDirs, dir)
}

func (r *Report) skipped(p string) {
	r.Skipped = append(r.Skipped, p)
}
