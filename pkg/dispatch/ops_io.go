package dispatch

import (
	"os"
	"path/filepath"

	"github.com/ratchov/midish-sub000/pkg/errs"
	"github.com/ratchov/midish-sub000/pkg/fileutil"
	"github.com/ratchov/midish-sub000/pkg/project"
	"github.com/ratchov/midish-sub000/pkg/song"
)

// registerIOOps wires the on-disk/SMF built-ins (§6.2, §6.3, §6.4):
// "save"/"load" read and write the project text format, "export"/"import"
// read and write Standard MIDI Files. All four replace the live Song
// wholesale on success, mirroring the original's usong reassignment
// (song.Song.ReplaceAll).
func registerIOOps(t *Table) {
	t.Register("save", opSave)
	t.Register("load", opLoad)
	t.Register("export", opExport)
	t.Register("import", opImport)
}

func opSave(s *song.Song, a Args) (Value, error) {
	path, err := a.Str("save", "path")
	if err != nil {
		return Nil(), err
	}
	f, err := os.Create(path)
	if err != nil {
		return Nil(), errs.IOErr("save", err)
	}
	defer f.Close()
	if err := project.Save(f, s); err != nil {
		return Nil(), err
	}
	return Nil(), nil
}

func opLoad(s *song.Song, a Args) (Value, error) {
	path, err := a.Str("load", "path")
	if err != nil {
		return Nil(), err
	}
	f, err := openCaseInsensitive(path)
	if err != nil {
		return Nil(), errs.IOErr("load", err)
	}
	defer f.Close()
	loaded, err := project.Load(f)
	if err != nil {
		return Nil(), err
	}
	s.ReplaceAll(loaded)
	return Nil(), nil
}

// openCaseInsensitive opens path as given, falling back to a case-insensitive
// search of its directory when the exact name isn't there. Project and SMF
// files are frequently authored on case-insensitive filesystems and shared
// onto case-sensitive ones, so a "load path=Song.mid" that was saved as
// "song.mid" still resolves.
func openCaseInsensitive(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err == nil {
		return f, nil
	}
	actual, ferr := fileutil.FindFileCaseInsensitive(filepath.Dir(path), filepath.Base(path))
	if ferr != nil {
		return nil, err
	}
	return os.Open(actual)
}

func opExport(s *song.Song, a Args) (Value, error) {
	path, err := a.Str("export", "path")
	if err != nil {
		return Nil(), err
	}
	f, err := os.Create(path)
	if err != nil {
		return Nil(), errs.IOErr("export", err)
	}
	defer f.Close()
	if err := project.ExportSMF(f, s); err != nil {
		return Nil(), err
	}
	return Nil(), nil
}

func opImport(s *song.Song, a Args) (Value, error) {
	path, err := a.Str("import", "path")
	if err != nil {
		return Nil(), err
	}
	f, err := openCaseInsensitive(path)
	if err != nil {
		return Nil(), errs.IOErr("import", err)
	}
	defer f.Close()
	loaded, err := project.ImportSMF(f)
	if err != nil {
		return Nil(), err
	}
	s.ReplaceAll(loaded)
	return Nil(), nil
}
