// Package diskmgr implements the paged disk manager described in the
// storage engine's design: a data file that is an array of fixed-size
// pages addressed by a 4-byte page id, and a garbage file that persists
// the free-page pool and the high-water page id across restarts.
package diskmgr

import (
	"encoding/binary"
	"io"
	"os"
	"sync"

	"github.com/pkg/errors"
)

// PageID addresses a single page within the data file.
type PageID int32

// InvalidPageID is the sentinel for "no page".
const InvalidPageID PageID = -1

// PageSize is the canonical fixed page size used across the engine.
const PageSize = 4096

// DiskManager owns the data and garbage files and recycles page ids
// across restarts. All methods are safe for single-threaded use only;
// the core never calls them concurrently (see spec §5).
type DiskManager struct {
	mu sync.Mutex

	dataFile    *os.File
	garbageFile *os.File

	freePages []PageID // stack of ids returned by DeallocatePage
	maxPageID PageID   // highest id ever handed out; -1 for a fresh file
	isNew     bool
}

// Open opens (or creates) the data file at dataPath and the garbage file
// at garbagePath, reconstructing the free-page pool from the garbage file
// when one already existed.
func Open(dataPath, garbagePath string) (*DiskManager, error) {
	dataFile, err := os.OpenFile(dataPath, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, "diskmgr: open data file %q", dataPath)
	}

	_, statErr := os.Stat(garbagePath)
	isNew := os.IsNotExist(statErr)

	garbageFile, err := os.OpenFile(garbagePath, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		dataFile.Close()
		return nil, errors.Wrapf(err, "diskmgr: open garbage file %q", garbagePath)
	}

	dm := &DiskManager{
		dataFile:    dataFile,
		garbageFile: garbageFile,
		maxPageID:   InvalidPageID,
		isNew:       isNew,
	}

	if !isNew {
		if err := dm.loadGarbage(); err != nil {
			dataFile.Close()
			garbageFile.Close()
			return nil, err
		}
	}

	return dm, nil
}

// IsNew reports whether the garbage file did not exist before this
// process opened it.
func (dm *DiskManager) IsNew() bool {
	return dm.isNew
}

// ReadPage reads exactly PageSize bytes at id*PageSize into buf. A short
// read past the current end of a sparse file is zero-filled rather than
// treated as an error.
func (dm *DiskManager) ReadPage(id PageID, buf []byte) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	if len(buf) != PageSize {
		return errors.Errorf("diskmgr: read buffer must be %d bytes, got %d", PageSize, len(buf))
	}

	offset := int64(id) * PageSize
	n, err := dm.dataFile.ReadAt(buf, offset)
	if err != nil && err != io.EOF {
		return errors.Wrapf(err, "diskmgr: read page %d", id)
	}
	for i := n; i < PageSize; i++ {
		buf[i] = 0
	}
	return nil
}

// WritePage writes exactly PageSize bytes from buf at id*PageSize.
func (dm *DiskManager) WritePage(id PageID, buf []byte) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	if len(buf) != PageSize {
		return errors.Errorf("diskmgr: write buffer must be %d bytes, got %d", PageSize, len(buf))
	}

	offset := int64(id) * PageSize
	if _, err := dm.dataFile.WriteAt(buf, offset); err != nil {
		return errors.Wrapf(err, "diskmgr: write page %d", id)
	}
	return nil
}

// AllocatePage returns a page id: popped from the free-page pool if
// non-empty, otherwise the next monotonic id. The page's on-disk contents
// are undefined; the caller must initialize them.
func (dm *DiskManager) AllocatePage() PageID {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	if n := len(dm.freePages); n > 0 {
		id := dm.freePages[n-1]
		dm.freePages = dm.freePages[:n-1]
		return id
	}

	dm.maxPageID++
	return dm.maxPageID
}

// DeallocatePage returns id to the free-page pool. The data file is never
// truncated.
func (dm *DiskManager) DeallocatePage(id PageID) {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	dm.freePages = append(dm.freePages, id)
}

// garbage file layout: u64 size | i32 max_page_id | i32[size] free_ids.
func (dm *DiskManager) loadGarbage() error {
	var size uint64
	if err := binary.Read(dm.garbageFile, binary.LittleEndian, &size); err != nil {
		if err == io.EOF {
			return nil // empty garbage file: nothing to reconstruct
		}
		return errors.Wrap(err, "diskmgr: read garbage file size")
	}

	var maxPageID int32
	if err := binary.Read(dm.garbageFile, binary.LittleEndian, &maxPageID); err != nil {
		return errors.Wrap(err, "diskmgr: read garbage file max page id")
	}
	dm.maxPageID = PageID(maxPageID)

	ids := make([]PageID, size)
	for i := range ids {
		var raw int32
		if err := binary.Read(dm.garbageFile, binary.LittleEndian, &raw); err != nil {
			return errors.Wrap(err, "diskmgr: read garbage file free id")
		}
		ids[i] = PageID(raw)
	}
	dm.freePages = ids
	return nil
}

// Close persists the free-page pool to the garbage file and closes both
// underlying files. An unclean process exit skips this, leaking the
// recently-freed ids as dead slots in the data file without corrupting
// the tree (see spec §4.1).
func (dm *DiskManager) Close() error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	if err := dm.garbageFile.Truncate(0); err != nil {
		return errors.Wrap(err, "diskmgr: truncate garbage file")
	}
	if _, err := dm.garbageFile.Seek(0, io.SeekStart); err != nil {
		return errors.Wrap(err, "diskmgr: seek garbage file")
	}

	if err := binary.Write(dm.garbageFile, binary.LittleEndian, uint64(len(dm.freePages))); err != nil {
		return errors.Wrap(err, "diskmgr: write garbage file size")
	}
	if err := binary.Write(dm.garbageFile, binary.LittleEndian, int32(dm.maxPageID)); err != nil {
		return errors.Wrap(err, "diskmgr: write garbage file max page id")
	}
	for _, id := range dm.freePages {
		if err := binary.Write(dm.garbageFile, binary.LittleEndian, int32(id)); err != nil {
			return errors.Wrap(err, "diskmgr: write garbage file free id")
		}
	}

	if err := dm.dataFile.Sync(); err != nil {
		return errors.Wrap(err, "diskmgr: sync data file")
	}
	if err := dm.garbageFile.Sync(); err != nil {
		return errors.Wrap(err, "diskmgr: sync garbage file")
	}

	if err := dm.dataFile.Close(); err != nil {
		return errors.Wrap(err, "diskmgr: close data file")
	}
	return errors.Wrap(dm.garbageFile.Close(), "diskmgr: close garbage file")
}
