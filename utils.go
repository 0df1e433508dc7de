package cvatyolo

import (
	"bufio"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// filesByExtInDir returns all regular files and symlinks found directly in directory dirPath whose
// extension matches one of exts, ignoring case. All files are returned if exts is empty.
func filesByExtInDir(dirPath string, exts []string) (files []string, err error) {
	// Open the directory.
	dirInfo, err := os.Stat(dirPath)
	if err != nil || !dirInfo.IsDir() {
		return nil, errors.Errorf("cannot read directory %q: %v", dirPath, err)
	}
	dir, err := os.Open(dirPath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to access %q", dirPath)
	}
	defer closeWithErrCheck(dir, &err)

	hasExt := func(name string) bool {
		if len(exts) == 0 {
			return true
		}
		ext := filepath.Ext(name)
		for _, e := range exts {
			if strings.EqualFold(ext, e) {
				return true
			}
		}
		return false
	}

	// Iterate over all files in dir.
	files = make([]string, 0, 100)
	var fileList []os.FileInfo
	for fileList, err = dir.Readdir(100); len(fileList) > 0; fileList, err = dir.Readdir(100) {
		for _, file := range fileList {
			name := file.Name()
			// Must be a regular file or a symlink and have the requested extension.
			if (!file.Mode().IsRegular() && (file.Mode()&os.ModeSymlink == 0)) || !hasExt(name) {
				continue
			}
			files = append(files, filepath.Join(dirPath, name))
		}
	}
	if err != nil && err != io.EOF {
		log.Printf("Failed to access some files in %q: %v", dirPath, err)
	}

	return files, nil
}

// splitPath splits the given file path into the dir name, the base name without extension and the
// extension (without the dot).
func splitPath(path string) (dir, baseNoExt, ext string, err error) {
	dir, file := filepath.Split(path)
	ext = filepath.Ext(file)
	if ext == "" {
		return "", "", "", errors.Errorf("missing file extension in %q", path)
	}

	dir = strings.TrimSuffix(dir, string(os.PathSeparator))
	baseNoExt = file[0 : len(file)-len(ext)]
	ext = ext[1:]

	return dir, baseNoExt, ext, nil
}

// readLines returns a slice of lines read from the file at path.
func readLines(path string) (lines []string, err error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read file %q", path)
	}
	defer closeWithErrCheck(file, &err)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "failed to read %q as lines", path)
	}

	return lines, nil
}

// readFile uses io.ReadAll to read the file at path.
func readFile(path string) (data []byte, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer closeWithErrCheck(f, &err)

	data, err = io.ReadAll(f)
	if err != nil {
		return nil, err
	}

	return data, nil
}

// copyFile copies the regular file src to dst, keeping the permission bits and the modification
// time.
func copyFile(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer closeWithErrCheck(in, &err)

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err = io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err = out.Close(); err != nil {
		return err
	}

	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}

// closeWithErrCheck calls c.Close(). If it returns an error, and (*e == nil), e is set to that
// error.
func closeWithErrCheck(c io.Closer, e *error) {
	err := c.Close()
	if err != nil && *e == nil {
		*e = err
	}
}
