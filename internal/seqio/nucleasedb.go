package seqio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kkokay07/K-Sites/internal/guides"
)

// NucleaseDB is the file of custom nuclease profiles, one per line:
//
//	name	pam	spacer_length	pam_side	quality_weight
//	SpRY	NRN	20	3prime	0.6
//
// Alternative motifs follow the primary one, comma separated (NG,GAW)
type NucleaseDB struct {
	path string
}

// NewNucleaseDB returns the nuclease database at path. The file doesn't need to exist
func NewNucleaseDB(path string) *NucleaseDB {
	return &NucleaseDB{path: path}
}

// Path of the database file
func (db *NucleaseDB) Path() string {
	return db.path
}

// Read returns the profiles in the database, none if the file doesn't exist
func (db *NucleaseDB) Read() ([]guides.Profile, error) {
	f, err := os.Open(db.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to open nuclease database: %w", err)
	}
	defer f.Close()

	return ParseNucleases(db.path, f)
}

// Load registers every profile in the database with reg
func (db *NucleaseDB) Load(reg *guides.Registry) error {
	profiles, err := db.Read()
	if err != nil {
		return err
	}
	for _, p := range profiles {
		if err := reg.Register(p.Name, p); err != nil {
			return fmt.Errorf("%s: %w", db.path, err)
		}
	}
	return nil
}

// Set registers p with reg and saves it to the database. It reports whether
// a profile of the same name was replaced
func (db *NucleaseDB) Set(reg *guides.Registry, p guides.Profile) (updated bool, err error) {
	_, err = reg.Get(p.Name)
	updated = err == nil

	if err := reg.Register(p.Name, p); err != nil {
		return false, err
	}
	return updated, db.Save(reg)
}

// Delete removes a custom profile from reg and the database
func (db *NucleaseDB) Delete(reg *guides.Registry, name string) error {
	if err := reg.Remove(name); err != nil {
		return err
	}
	return db.Save(reg)
}

// Save writes the custom profiles of reg to the database, replacing its contents
func (db *NucleaseDB) Save(reg *guides.Registry) error {
	var buf bytes.Buffer
	if err := WriteNucleases(&buf, reg.Custom()); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(db.path), 0755); err != nil {
		return fmt.Errorf("failed to create nuclease database directory: %w", err)
	}
	if err := os.WriteFile(db.path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write nuclease database: %w", err)
	}
	return nil
}

// ParseNucleases reads nuclease profiles from a database file's contents
func ParseNucleases(name string, r io.Reader) ([]guides.Profile, error) {
	rows, err := readRows(name, r, 5, "name")
	if err != nil {
		return nil, err
	}

	profiles := make([]guides.Profile, 0, len(rows))
	for _, row := range rows {
		c := row.columns

		spacer, err := strconv.Atoi(c[2])
		if err != nil {
			return nil, fmt.Errorf("%s line %d: bad spacer length %q", name, row.line, c[2])
		}
		side, err := guides.ParsePAMSide(c[3])
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", name, row.line, err)
		}
		weight, err := strconv.ParseFloat(c[4], 64)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: bad quality weight %q", name, row.line, c[4])
		}

		pams := strings.Split(c[1], ",")
		for i := range pams {
			pams[i] = strings.ToUpper(strings.TrimSpace(pams[i]))
		}

		p := guides.Profile{
			Name:          c[0],
			PAM:           pams[0],
			SpacerLength:  spacer,
			Side:          side,
			QualityWeight: weight,
		}
		if len(pams) > 1 {
			p.AltPAMs = pams[1:]
		}
		profiles = append(profiles, p)
	}
	return profiles, nil
}

// WriteNucleases writes profiles in the nuclease database format
func WriteNucleases(w io.Writer, profiles []guides.Profile) error {
	for _, p := range profiles {
		pams := append([]string{p.PAM}, p.AltPAMs...)
		_, err := fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
			p.Name,
			strings.Join(pams, ","),
			p.SpacerLength,
			p.Side,
			strconv.FormatFloat(p.QualityWeight, 'f', -1, 64),
		)
		if err != nil {
			return fmt.Errorf("failed to write nuclease %s: %w", p.Name, err)
		}
	}
	return nil
}
