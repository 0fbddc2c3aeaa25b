package filesystem

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// idKey is the front matter key holding the note's stable id.
const idKey = "notelink-id"

// tagsKey is the front matter key holding machine-generated tags.
const tagsKey = "tags"

const frontMatterFence = "---"

// parsedNote is the result of splitting a raw note into its three regions.
type parsedNote struct {
	id             string
	main           string
	managed        string
	hasFrontMatter bool
	hasBoundary    bool
}

// parseNote splits raw note text into front matter, the user-authored main
// region and the machine-managed region. The main region is trimmed of
// trailing newlines so that appending a boundary marker later does not
// change its fingerprint.
func parseNote(raw string) (parsedNote, error) {
	var parsed parsedNote

	fm, body, hasFM := splitFrontMatter(raw)
	parsed.hasFrontMatter = hasFM
	if hasFM {
		var fields map[string]any
		if err := yaml.Unmarshal([]byte(fm), &fields); err != nil {
			return parsedNote{}, fmt.Errorf("front matter: %w", err)
		}
		if id, ok := fields[idKey].(string); ok {
			parsed.id = id
		}
	}

	main, managed, hasBoundary := splitManaged(body)
	parsed.main = main
	parsed.managed = managed
	parsed.hasBoundary = hasBoundary
	return parsed, nil
}

// splitFrontMatter separates a leading YAML front matter block from the
// note body. A note without a well-formed block (opening fence on the very
// first line, closing fence on its own line) is treated as all body.
func splitFrontMatter(raw string) (fm, body string, ok bool) {
	if !strings.HasPrefix(raw, frontMatterFence+"\n") {
		return "", raw, false
	}
	rest := raw[len(frontMatterFence)+1:]
	end := strings.Index(rest, "\n"+frontMatterFence+"\n")
	if end < 0 {
		if strings.HasSuffix(rest, "\n"+frontMatterFence) {
			return rest[:len(rest)-len(frontMatterFence)-1], "", true
		}
		return "", raw, false
	}
	return rest[:end], rest[end+len(frontMatterFence)+2:], true
}

// splitManaged separates the user-authored region from the machine-managed
// region at the boundary marker. Absent a marker the whole body is
// user-authored.
func splitManaged(body string) (main, managed string, ok bool) {
	idx := strings.Index(body, BoundaryMarker)
	if idx < 0 {
		return strings.TrimRight(body, "\n"), "", false
	}
	main = strings.TrimRight(body[:idx], "\n")
	managed = strings.TrimPrefix(body[idx+len(BoundaryMarker):], "\n")
	return main, managed, true
}

// replaceManagedRegion rewrites everything from the boundary marker to the
// end of the note with content, leaving the regions above untouched. When
// the note has no marker yet, one is appended below the user content.
func replaceManagedRegion(raw, content string) string {
	idx := strings.Index(raw, BoundaryMarker)
	var prefix string
	if idx >= 0 {
		prefix = raw[:idx]
	} else {
		prefix = strings.TrimRight(raw, "\n") + "\n\n"
	}
	rendered := prefix + BoundaryMarker + "\n" + content
	if !strings.HasSuffix(rendered, "\n") {
		rendered += "\n"
	}
	return rendered
}

// ensureNoteID returns the note's id from front matter. When absent it
// assigns a fresh UUID by inserting a single line into the existing front
// matter (preserving the user's formatting) or by prepending a minimal
// block. changed reports whether the note text was modified.
func ensureNoteID(raw string) (id, updated string, changed bool, err error) {
	parsed, err := parseNote(raw)
	if err != nil {
		return "", "", false, err
	}
	if parsed.id != "" {
		return parsed.id, raw, false, nil
	}

	id = uuid.NewString()
	idLine := idKey + ": " + id + "\n"
	if parsed.hasFrontMatter {
		// Insert immediately after the opening fence.
		updated = frontMatterFence + "\n" + idLine + raw[len(frontMatterFence)+1:]
	} else {
		updated = frontMatterFence + "\n" + idLine + frontMatterFence + "\n" + raw
	}
	return id, updated, true, nil
}

// setFrontMatterTags rewrites the tags key in front matter, adding a block
// when the note has none. Other front matter lines are preserved verbatim;
// only the tags block is regenerated.
func setFrontMatterTags(raw string, tags []string) (string, error) {
	parsed, err := parseNote(raw)
	if err != nil {
		return "", err
	}

	block := renderTagsBlock(tags)
	if !parsed.hasFrontMatter {
		return frontMatterFence + "\n" + block + frontMatterFence + "\n" + raw, nil
	}

	fm, body, _ := splitFrontMatter(raw)
	kept := removeTopLevelKey(fm, tagsKey)
	var b strings.Builder
	b.WriteString(frontMatterFence + "\n")
	if kept != "" {
		b.WriteString(kept)
		if !strings.HasSuffix(kept, "\n") {
			b.WriteString("\n")
		}
	}
	b.WriteString(block)
	b.WriteString(frontMatterFence + "\n")
	b.WriteString(body)
	return b.String(), nil
}

// renderTagsBlock renders the YAML tags sequence written into front matter.
func renderTagsBlock(tags []string) string {
	if len(tags) == 0 {
		return tagsKey + ": []\n"
	}
	var b strings.Builder
	b.WriteString(tagsKey + ":\n")
	for _, tag := range tags {
		b.WriteString("  - ")
		b.WriteString(tag)
		b.WriteString("\n")
	}
	return b.String()
}

// removeTopLevelKey strips a top-level YAML key and its indented
// continuation lines from front matter text.
func removeTopLevelKey(fm, key string) string {
	lines := strings.Split(fm, "\n")
	var kept []string
	skipping := false
	for _, line := range lines {
		if strings.HasPrefix(line, key+":") {
			skipping = true
			continue
		}
		if skipping {
			// Continuation lines are indented or sequence items.
			if line != "" && (strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t") || strings.HasPrefix(line, "-")) {
				continue
			}
			skipping = false
		}
		kept = append(kept, line)
	}
	out := strings.TrimRight(strings.Join(kept, "\n"), "\n")
	if out == "" {
		return ""
	}
	return out + "\n"
}
