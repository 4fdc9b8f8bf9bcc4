package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rotisserie/eris"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/brand-media/internal/model"
)

var validate = validator.New()

// inputFlags are the per-field overrides accepted by commands that start a run.
type inputFlags struct {
	file          string
	brand         string
	instagram     string
	facebook      string
	tiktok        string
	googleMaps    string
	location      string
	locationQuery string
	website       string
	keywords      []string
	maxMedia      int
}

func (f *inputFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.file, "input", "", "brand input file (.yaml, .yml or .json)")
	fs.StringVar(&f.brand, "brand", "", "brand name")
	fs.StringVar(&f.instagram, "instagram", "", "Instagram profile URL")
	fs.StringVar(&f.facebook, "facebook", "", "Facebook page URL")
	fs.StringVar(&f.tiktok, "tiktok", "", "TikTok profile URL")
	fs.StringVar(&f.googleMaps, "google-maps", "", "Google Maps place URL")
	fs.StringVar(&f.location, "location", "", "location to search places in")
	fs.StringVar(&f.locationQuery, "location-query", "", "place search string (default brand name)")
	fs.StringVar(&f.website, "website", "", "brand website URL")
	fs.StringSliceVar(&f.keywords, "keyword", nil, "search keyword (repeatable)")
	fs.IntVar(&f.maxMedia, "max-media", 0, "per-source download cap (0 uses config)")
}

// build reads the input file, if any, applies changed flags over it and
// validates the result.
func (f *inputFlags) build(fs *pflag.FlagSet) (model.BrandInput, error) {
	var in model.BrandInput
	if f.file != "" {
		loaded, err := loadInputFile(f.file)
		if err != nil {
			return in, err
		}
		in = loaded
	}

	set := func(name string, dst *string, val string) {
		if fs.Changed(name) {
			*dst = val
		}
	}
	set("brand", &in.BrandName, f.brand)
	set("instagram", &in.Instagram, f.instagram)
	set("facebook", &in.Facebook, f.facebook)
	set("tiktok", &in.TikTok, f.tiktok)
	set("google-maps", &in.GoogleMaps, f.googleMaps)
	set("location", &in.Location, f.location)
	set("location-query", &in.LocationQuery, f.locationQuery)
	set("website", &in.Website, f.website)
	if fs.Changed("keyword") {
		in.Keywords = f.keywords
	}
	if fs.Changed("max-media") {
		in.MaxMediaPerSource = f.maxMedia
	}

	if err := validateInput(in); err != nil {
		return in, err
	}
	return in, nil
}

// loadInputFile decodes a brand input from YAML or JSON, chosen by extension.
func loadInputFile(path string) (model.BrandInput, error) {
	var in model.BrandInput
	data, err := os.ReadFile(path)
	if err != nil {
		return in, eris.Wrapf(err, "read input %s", path)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, &in)
	default:
		err = yaml.Unmarshal(data, &in)
	}
	if err != nil {
		return in, eris.Wrapf(err, "decode input %s", path)
	}
	return in, nil
}

// validateInput checks field formats and reports every problem at once.
func validateInput(in model.BrandInput) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return eris.Wrap(err, "validate input")
	}
	problems := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		problems = append(problems, fmt.Sprintf("%s: failed %q", fe.Namespace(), fe.Tag()))
	}
	return eris.Errorf("invalid input: %s", strings.Join(problems, "; "))
}
