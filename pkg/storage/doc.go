// Package storage manages the files a run leaves in its output directory.
//
// Images live under images/<category key>/<name>.jpg. Every write goes to a
// temporary file first and is renamed into place, so a crashed run never
// leaves a truncated image behind. Category keys come from URL paths and
// may contain slashes; keys that would escape the image area are rejected.
//
// Usage:
//
//	manager, err := storage.NewManager("out", "images", "debug")
//	if err != nil {
//	    return err
//	}
//	if err := manager.Reset(); err != nil {
//	    return err
//	}
//	rel, err := manager.SaveImage(bytes.NewReader(data), "men/tops", "E482305-000")
//	// rel == "images/men/tops/E482305-000.jpg"
package storage
