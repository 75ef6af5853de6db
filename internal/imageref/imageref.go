// Package imageref normalises container image references so whitelist
// matching treats "ubuntu", "ubuntu:latest", and
// "docker.io/library/ubuntu:latest" consistently.
package imageref

import "github.com/distribution/reference"

// Allowed reports whether image matches any entry in allowlist. Matching
// normalises both sides through reference.ParseNormalizedNamed; an
// allowlist entry that names a tag or digest must match exactly, while an
// entry naming only a repository matches any tag/digest of that repository.
func Allowed(image string, allowlist []string) bool {
	if len(allowlist) == 0 {
		return true
	}
	candidate, err := reference.ParseNormalizedNamed(image)
	if err != nil {
		return false
	}
	for _, entry := range allowlist {
		if matches(candidate, entry) {
			return true
		}
	}
	return false
}

func matches(candidate reference.Named, entry string) bool {
	want, err := reference.ParseNormalizedNamed(entry)
	if err != nil {
		return false
	}
	if candidate.Name() != want.Name() {
		return false
	}

	wantTagged, wantHasTag := want.(reference.Tagged)
	wantDigested, wantHasDigest := want.(reference.Digested)
	if !wantHasTag && !wantHasDigest {
		// bare repository entry: matches any tag/digest of that repository.
		return true
	}

	if wantHasDigest {
		candDigested, ok := candidate.(reference.Digested)
		return ok && candDigested.Digest() == wantDigested.Digest()
	}

	candTagged, ok := candidate.(reference.Tagged)
	return ok && candTagged.Tag() == wantTagged.Tag()
}

// Normalize returns the fully-qualified form of a reference (registry +
// repository + explicit tag/digest), for display in audit events.
func Normalize(image string) (string, error) {
	named, err := reference.ParseNormalizedNamed(image)
	if err != nil {
		return "", err
	}
	return reference.TagNameOnly(named).String(), nil
}
