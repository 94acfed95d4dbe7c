package util

import (
	"archive/zip"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
)

// CreateCBZ zips image files into a CBZ archive at output. Files are sorted
// by name, which matches page order because pages are named page_NNN.
func CreateCBZ(files []string, output string) error {
	out, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("cbz: %w", err)
	}

	defer func() {
		if cerr := out.Close(); cerr != nil {
			log.Printf("error closing output file %s: %v", output, cerr)
		}
	}()

	return ZipFiles(files, out)
}

// ZipFiles writes a ZIP of the given files to w, entries named by base name
// in sorted order. Used for both CBZ output and the HTTP download stream.
func ZipFiles(files []string, w io.Writer) error {
	z := zip.NewWriter(w)

	sorted := make([]string, len(files))
	copy(sorted, files)
	sort.Strings(sorted)

	for _, file := range sorted {
		if err := addFileToZip(z, file); err != nil {
			_ = z.Close()
			return err
		}
	}

	return z.Close()
}

func addFileToZip(z *zip.Writer, file string) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			log.Printf("error closing input file %s: %v", file, cerr)
		}
	}()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}

	header.Name = filepath.Base(file)
	header.Method = zip.Deflate

	w, err := z.CreateHeader(header)
	if err != nil {
		return err
	}

	if _, err := io.Copy(w, f); err != nil {
		return err
	}

	return nil
}
