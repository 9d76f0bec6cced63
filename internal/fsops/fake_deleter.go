package fsops

// FakeDeleter implements Deleter for testing. It records every call as
// "rm:<path>" or "rmall:<path>" and touches nothing on disk. Paths listed
// in Fail return the mapped error instead.
type FakeDeleter struct {
	Calls []string
	Fail  map[string]error
}

func (f *FakeDeleter) Remove(path string) error {
	f.Calls = append(f.Calls, "rm:"+path)
	return f.Fail[path]
}

func (f *FakeDeleter) RemoveAll(path string) error {
	f.Calls = append(f.Calls, "rmall:"+path)
	return f.Fail[path]
}
