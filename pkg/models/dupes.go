package models

// CheckDuplicates derives the duplicate classification of d and every
// directory below it from their files and subdirectories, in post-order.
// Zero-byte files carry no signal and are ignored. A directory without
// any item keeps the classification it was given when loaded.
func (d *Directory) CheckDuplicates() DupeType {
	var (
		result   = DupeNone
		seenNone bool
		items    int
	)

	for _, c := range d.Directories {
		result = combineDupe(result, c.CheckDuplicates(), seenNone)
		seenNone = seenNone || c.Dupe == DupeNone
		items++
	}
	for _, f := range d.Files {
		if f.Size <= 0 {
			continue
		}
		result = combineDupe(result, f.Dupe, seenNone)
		seenNone = seenNone || f.Dupe == DupeNone
		items++
	}

	if items > 0 {
		d.Dupe = result
	}
	return d.Dupe
}

// combineDupe folds one item classification into the running classification
// of its directory. The result does not depend on the order of the items.
func combineDupe(cur, item DupeType, seenNone bool) DupeType {
	switch {
	case item == DupeNone:
		return cur.Partial()
	case cur == DupeNone:
		if seenNone {
			return item.Partial()
		}
		return item
	case cur == item:
		return cur
	case cur == DupeShareQueue || item == DupeShareQueue:
		return DupeShareQueue
	case cur.IsShare() != item.IsShare():
		return DupeShareQueue
	default:
		return cur.Partial()
	}
}
