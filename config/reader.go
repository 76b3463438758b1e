package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
)

// stripJSONComments removes // and /* */ comments so hand-edited config files may carry
// them, matching the original driver's parser. String contents are left untouched.
func stripJSONComments(data []byte) []byte {
	out := make([]byte, 0, len(data))
	inString := false
	escaped := false
	for i := 0; i < len(data); i++ {
		c := data[i]
		if inString {
			out = append(out, c)
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		if c == '"' {
			inString = true
			out = append(out, c)
			continue
		}
		if c == '/' && i+1 < len(data) {
			if data[i+1] == '/' {
				for i < len(data) && data[i] != '\n' {
					i++
				}
				if i < len(data) {
					out = append(out, '\n')
				}
				continue
			}
			if data[i+1] == '*' {
				i += 2
				for i+1 < len(data) && !(data[i] == '*' && data[i+1] == '/') {
					i++
				}
				i++
				continue
			}
		}
		out = append(out, c)
	}
	return out
}

// assignField decodes one field of a JSON object into dst. A missing field leaves dst
// untouched; a malformed or type-mismatched field is skipped and logged so the rest of
// the document still applies.
func assignField[T any](fields map[string]json.RawMessage, key string, dst *T, logger golog.Logger) {
	raw, ok := fields[key]
	if !ok {
		return
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		logger.Debugw("ignoring malformed config field", "field", key, "error", err)
		return
	}
	*dst = v
}

func objectFields(data []byte) (map[string]json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

// ReadSettings reads the settings file at path. It always returns usable settings: on a
// missing or unparseable file the defaults come back along with the error.
func ReadSettings(path string, logger golog.Logger) (Settings, error) {
	s := DefaultSettings()
	data, err := os.ReadFile(path)
	if err != nil {
		return s, errors.Wrap(err, "reading settings file")
	}
	fields, err := objectFields(stripJSONComments(data))
	if err != nil {
		return s, errors.Wrap(err, "parsing settings file")
	}

	assignField(fields, "watchDistortionProfiles", &s.WatchDistortionProfiles, logger)
	if raw, ok := fields["meganeX8K"]; ok {
		sub, err := objectFields(raw)
		if err != nil {
			logger.Debugw("ignoring malformed config field", "field", "meganeX8K", "error", err)
		} else {
			assignField(sub, "enable", &s.Headset.Enable, logger)
			assignField(sub, "ipd", &s.Headset.IPD, logger)
			assignField(sub, "ipdOffset", &s.Headset.IPDOffset, logger)
			assignField(sub, "blackLevel", &s.Headset.BlackLevel, logger)
			assignField(sub, "distortionProfile", &s.Headset.DistortionProfile, logger)
		}
	}
	return s, nil
}

// ReadDistortionProfile reads the named profile from the config directory's profile
// subdirectory.
func ReadDistortionProfile(dir, name string, logger golog.Logger) (DistortionProfileConfig, error) {
	c, err := ReadDistortionProfileFile(filepath.Join(dir, ProfileDirName, name+".json"), logger)
	c.Name = name
	return c, err
}

// ReadDistortionProfileFile reads one distortion profile file. Absent fields keep their
// defaults; malformed fields are skipped like in ReadSettings.
func ReadDistortionProfileFile(path string, logger golog.Logger) (DistortionProfileConfig, error) {
	c := DefaultProfile()
	c.Name = profileNameFromPath(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return c, errors.Wrap(err, "reading distortion profile")
	}
	fields, err := objectFields(stripJSONComments(data))
	if err != nil {
		return c, errors.Wrap(err, "parsing distortion profile")
	}

	assignField(fields, "description", &c.Description, logger)
	assignField(fields, "type", &c.Type, logger)
	assignField(fields, "distortions", &c.Distortions, logger)
	assignField(fields, "distortionsRed", &c.DistortionsRed, logger)
	assignField(fields, "distortionsBlue", &c.DistortionsBlue, logger)
	assignField(fields, "resolution", &c.Resolution, logger)
	assignField(fields, "smoothingDensity", &c.SmoothingDensity, logger)
	assignField(fields, "tableSize", &c.TableSize, logger)

	if info, err := os.Stat(path); err == nil {
		c.ModifiedTime = info.ModTime()
	}
	return c, nil
}

func profileNameFromPath(path string) string {
	base := filepath.Base(path)
	return base[:len(base)-len(filepath.Ext(base))]
}
