package service

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	cryptoDomain "github.com/allisson/phiguard/internal/crypto/domain"
	documentDomain "github.com/allisson/phiguard/internal/document/domain"
	keysDomain "github.com/allisson/phiguard/internal/keys/domain"
)

// fieldGroup holds the descriptors sharing one parent object path.
type fieldGroup struct {
	parent   []string
	children []documentDomain.FieldDescriptor
}

// DocumentFieldWalker applies the cipher engine to declared sensitive fields.
//
// Every walk is pure: it works on a deep copy and returns a new tree, so callers
// may keep using the document they passed in. A root-level array is treated as a
// list of documents. Encryption is fail-closed: the first error aborts the walk
// and no partially encrypted tree is returned. Decryption and rewrap are
// fail-soft per field: a failing leaf keeps its ciphertext and its object keeps
// the sidecar flags, while every other field is still processed.
type DocumentFieldWalker struct {
	cipher FieldCipher
	groups []fieldGroup
	leaves map[string]documentDomain.FieldKind
	logger *slog.Logger

	// leafNames holds every sensitive leaf name, sorted; parentLeaves holds the
	// leaf names declared under each parent path.
	leafNames    []string
	parentLeaves map[string][]string
}

// NewDocumentFieldWalker creates a walker over the given descriptors.
func NewDocumentFieldWalker(
	cipher FieldCipher,
	fields []documentDomain.FieldDescriptor,
	logger *slog.Logger,
) (*DocumentFieldWalker, error) {
	byParent := make(map[string][]documentDomain.FieldDescriptor)
	leaves := make(map[string]documentDomain.FieldKind)

	for _, field := range fields {
		if field.Path == "" || strings.HasPrefix(field.Path, ".") || strings.HasSuffix(field.Path, ".") ||
			strings.Contains(field.Path, "..") {
			return nil, fmt.Errorf("%w: %q", documentDomain.ErrInvalidDescriptor, field.Path)
		}
		if strings.HasPrefix(field.Leaf(), "_") {
			return nil, fmt.Errorf("%w: %q uses a reserved name", documentDomain.ErrInvalidDescriptor, field.Path)
		}
		byParent[field.Parent()] = append(byParent[field.Parent()], field)
		if _, ok := leaves[field.Leaf()]; !ok {
			leaves[field.Leaf()] = field.Kind
		}
	}

	parents := make([]string, 0, len(byParent))
	for parent := range byParent {
		parents = append(parents, parent)
	}
	sort.Strings(parents)

	groups := make([]fieldGroup, 0, len(parents))
	parentLeaves := make(map[string][]string, len(parents))
	for _, parent := range parents {
		groups = append(groups, fieldGroup{parent: splitPath(parent), children: byParent[parent]})
		for _, field := range byParent[parent] {
			parentLeaves[parent] = append(parentLeaves[parent], field.Leaf())
		}
		sort.Strings(parentLeaves[parent])
	}

	leafNames := make([]string, 0, len(leaves))
	for name := range leaves {
		leafNames = append(leafNames, name)
	}
	sort.Strings(leafNames)

	return &DocumentFieldWalker{
		cipher:       cipher,
		groups:       groups,
		leaves:       leaves,
		logger:       logger,
		leafNames:    leafNames,
		parentLeaves: parentLeaves,
	}, nil
}

// EncryptSensitiveFields replaces every present, non-empty, not yet encrypted
// sensitive string with an envelope under keyID and flags its object. Documents
// and objects already flagged are left untouched, which makes the call idempotent.
func (w *DocumentFieldWalker) EncryptSensitiveFields(doc any, keyID string) (any, documentDomain.WalkReport, error) {
	if keyID == "" {
		return nil, documentDomain.WalkReport{}, fmt.Errorf("%w: %w", cryptoDomain.ErrEncryption, keysDomain.ErrNoActiveKey)
	}

	out := deepCopy(doc)
	var report documentDomain.WalkReport

	switch root := out.(type) {
	case map[string]any:
		if err := w.encryptDocument(root, "", keyID, &report); err != nil {
			return nil, documentDomain.WalkReport{}, err
		}
	case []any:
		for i, elem := range root {
			if m, ok := elem.(map[string]any); ok {
				if err := w.encryptDocument(m, indexPath("", i), keyID, &report); err != nil {
					return nil, documentDomain.WalkReport{}, err
				}
			}
		}
	}
	return out, report, nil
}

func (w *DocumentFieldWalker) encryptDocument(
	root map[string]any,
	basePath string,
	keyID string,
	report *documentDomain.WalkReport,
) error {
	if isEncrypted(root) {
		return nil
	}

	// Flags are applied after every group so that a flag set on the root by a
	// top-level field does not hide nested objects from later groups.
	var flagged []map[string]any
	for _, group := range w.groups {
		for _, loc := range resolveParents(root, basePath, group.parent) {
			if isEncrypted(loc.node) {
				continue
			}

			encrypted := false
			for _, field := range group.children {
				plaintext, ok := loc.node[field.Leaf()].(string)
				if !ok || plaintext == "" {
					continue
				}
				envelope, err := w.cipher.Encrypt(plaintext, keyID)
				if err != nil {
					return err
				}
				loc.node[field.Leaf()] = envelope
				encrypted = true
				report.Processed++
			}
			if encrypted {
				flagged = append(flagged, loc.node)
			}
		}
	}

	for _, node := range flagged {
		markEncrypted(node, keyID)
	}
	return nil
}

// DecryptSensitiveFields visits every object and array node and decrypts the
// sensitive leaves of each flagged object. Flags are stripped from an object only
// when all of its envelopes decrypted.
func (w *DocumentFieldWalker) DecryptSensitiveFields(doc any) (any, documentDomain.WalkReport) {
	out := deepCopy(doc)
	var report documentDomain.WalkReport
	w.visit(out, "", "", func(node map[string]any, path, docID string) {
		report.Add(w.decryptNode(node, path, docID))
	})
	return out, report
}

// RewrapSensitiveFields re-encrypts every envelope not under the current key.
// Decrypt failures are per-field and reported; a failure to encrypt under the
// current key aborts the walk.
func (w *DocumentFieldWalker) RewrapSensitiveFields(doc any) (any, documentDomain.WalkReport, error) {
	out := deepCopy(doc)
	var report documentDomain.WalkReport
	var abort error
	w.visit(out, "", "", func(node map[string]any, path, docID string) {
		if abort != nil {
			return
		}
		var nodeReport documentDomain.WalkReport
		nodeReport, abort = w.rewrapNode(node, path, docID)
		report.Add(nodeReport)
	})
	if abort != nil {
		return nil, documentDomain.WalkReport{}, abort
	}
	return out, report, nil
}

// SensitiveText concatenates the plaintext sensitive values of an unencrypted
// document, for keyword classification.
func (w *DocumentFieldWalker) SensitiveText(doc any) string {
	var parts []string
	collect := func(root map[string]any) {
		if isEncrypted(root) {
			return
		}
		for _, group := range w.groups {
			for _, loc := range resolveParents(root, "", group.parent) {
				if isEncrypted(loc.node) {
					continue
				}
				for _, field := range group.children {
					if s, ok := loc.node[field.Leaf()].(string); ok && s != "" {
						parts = append(parts, s)
					}
				}
			}
		}
	}

	switch root := doc.(type) {
	case map[string]any:
		collect(root)
	case []any:
		for _, elem := range root {
			if m, ok := elem.(map[string]any); ok {
				collect(m)
			}
		}
	}
	return strings.Join(parts, "\n")
}

// visit calls fn for every object in the tree, depth first, parents before children.
func (w *DocumentFieldWalker) visit(v any, path, docID string, fn func(node map[string]any, path, docID string)) {
	switch t := v.(type) {
	case map[string]any:
		if id, ok := documentID(t); ok {
			docID = id
		}
		if isEncrypted(t) {
			fn(t, path, docID)
		}
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			w.visit(t[k], joinPath(path, k), docID, fn)
		}
	case []any:
		for i, elem := range t {
			w.visit(elem, indexPath(path, i), docID, fn)
		}
	}
}

// ciphertextLeaves returns the sensitive leaf names on a flagged node that hold
// a non-empty string. Every such value is expected to be an envelope, so a
// mangled one fails to decrypt instead of passing for plaintext. A node at a
// declared parent path uses that path's leaves; any other flagged node, such as
// an embedded document, uses every sensitive leaf name.
func (w *DocumentFieldWalker) ciphertextLeaves(node map[string]any, path string) []string {
	candidates, ok := w.parentLeaves[descriptorPath(path)]
	if !ok {
		candidates = w.leafNames
	}

	var names []string
	for _, name := range candidates {
		if s, ok := node[name].(string); ok && s != "" {
			names = append(names, name)
		}
	}
	return names
}

func (w *DocumentFieldWalker) decryptNode(node map[string]any, path, docID string) documentDomain.WalkReport {
	var report documentDomain.WalkReport
	hint := keyIDHint(node)

	for _, name := range w.ciphertextLeaves(node, path) {
		fieldPath := joinPath(path, name)
		result := w.cipher.TryDecrypt(node[name].(string), hint)
		if !result.OK() {
			report.Failed++
			report.FailedPaths = append(report.FailedPaths, fieldPath)
			w.logFailure("sensitive field left encrypted", docID, fieldPath, w.leaves[name], result.Err)
			continue
		}
		node[name] = result.Plaintext
		report.Processed++
	}

	if report.OK() {
		clearEncrypted(node)
	}
	return report
}

func (w *DocumentFieldWalker) rewrapNode(
	node map[string]any,
	path, docID string,
) (documentDomain.WalkReport, error) {
	var report documentDomain.WalkReport
	hint := keyIDHint(node)
	currentID := ""

	for _, name := range w.ciphertextLeaves(node, path) {
		fieldPath := joinPath(path, name)
		result, err := w.cipher.Rewrap(node[name].(string), hint)
		if err != nil {
			if errors.Is(err, cryptoDomain.ErrEncryption) {
				return documentDomain.WalkReport{}, err
			}
			report.Failed++
			report.FailedPaths = append(report.FailedPaths, fieldPath)
			w.logFailure("sensitive field not rewrapped", docID, fieldPath, w.leaves[name], err)
			continue
		}
		currentID = result.KeyID
		if result.Changed {
			node[name] = result.Envelope
			report.Processed++
		}
	}

	if report.OK() && currentID != "" {
		node[documentDomain.EncryptionKeyIDFlag] = currentID
	}
	return report, nil
}

func (w *DocumentFieldWalker) logFailure(msg, docID, fieldPath string, kind documentDomain.FieldKind, err error) {
	w.logger.Warn(msg,
		slog.String("document_id", docID),
		slog.String("field_path", fieldPath),
		slog.String("field_kind", string(kind)),
		slog.String("reason", failureReason(err)),
	)
}

// failureReason maps an error to a fixed category so that logs never carry
// error text.
func failureReason(err error) string {
	switch {
	case errors.Is(err, cryptoDomain.ErrMissingKeyID):
		return "missing_key_id"
	case errors.Is(err, keysDomain.ErrKeyNotFound):
		return "unknown_key"
	case errors.Is(err, cryptoDomain.ErrInvalidEnvelope):
		return "malformed_envelope"
	default:
		return "authentication_failed"
	}
}
