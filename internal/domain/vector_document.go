package domain

import "maps"

// VectorDocument is a code chunk plus its dense and (optionally) sparse
// representations and payload metadata. Identity is by ID; every other
// field is payload owned by the VectorStore once inserted.
type VectorDocument struct {
	id            string
	dense         []float32
	sparse        SparseVector
	hasSparse     bool
	content       string
	relativePath  string
	startLine     int
	endLine       int
	fileExtension string
	metadata      map[string]string
}

// NewVectorDocument creates a VectorDocument with a dense vector and no
// sparse vector attached yet. A nil dense vector stays nil, so Dense
// reports that none was attached.
func NewVectorDocument(
	id string,
	dense []float32,
	content, relativePath string,
	startLine, endLine int,
	fileExtension string,
	metadata map[string]string,
) VectorDocument {
	var d []float32
	if dense != nil {
		d = make([]float32, len(dense))
		copy(d, dense)
	}
	m := make(map[string]string, len(metadata))
	maps.Copy(m, metadata)
	return VectorDocument{
		id:            id,
		dense:         d,
		content:       content,
		relativePath:  relativePath,
		startLine:     startLine,
		endLine:       endLine,
		fileExtension: fileExtension,
		metadata:      m,
	}
}

// WithSparse returns a copy of the document with a sparse vector
// attached.
func (d VectorDocument) WithSparse(sparse SparseVector) VectorDocument {
	d.sparse = sparse
	d.hasSparse = true
	return d
}

// ID returns the stable, caller-supplied identifier.
func (d VectorDocument) ID() string { return d.id }

// Dense returns the dense embedding, or nil if none was attached.
func (d VectorDocument) Dense() []float32 {
	if d.dense == nil {
		return nil
	}
	out := make([]float32, len(d.dense))
	copy(out, d.dense)
	return out
}

// Sparse returns the sparse vector attached to this document, if any.
func (d VectorDocument) Sparse() (SparseVector, bool) { return d.sparse, d.hasSparse }

// Content returns the document's UTF-8 text.
func (d VectorDocument) Content() string { return d.content }

// RelativePath returns the path the document was extracted from.
func (d VectorDocument) RelativePath() string { return d.relativePath }

// StartLine returns the 1-based inclusive start line.
func (d VectorDocument) StartLine() int { return d.startLine }

// EndLine returns the 1-based inclusive end line.
func (d VectorDocument) EndLine() int { return d.endLine }

// FileExtension returns the source file extension.
func (d VectorDocument) FileExtension() string { return d.fileExtension }

// Metadata returns a copy of the open metadata mapping.
func (d VectorDocument) Metadata() map[string]string {
	out := make(map[string]string, len(d.metadata))
	maps.Copy(out, d.metadata)
	return out
}
