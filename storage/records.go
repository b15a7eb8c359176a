package storage

// PutRequest stores a swap request record.
func (s *Storage) PutRequest(r *RequestRecord) error {
	return s.setArtifact(requestPrefix, idKey(r.ID), r)
}

// Request retrieves a swap request record. Returns ErrNotFound if it does
// not exist.
func (s *Storage) Request(id uint64) (*RequestRecord, error) {
	r := &RequestRecord{}
	if err := s.getArtifact(requestPrefix, idKey(id), r); err != nil {
		return nil, err
	}
	return r, nil
}

// PutBatch stores a batch snapshot, overwriting any previous snapshot for the
// same batch id.
func (s *Storage) PutBatch(b *BatchRecord) error {
	return s.setArtifact(batchPrefix, idKey(b.ID), b)
}

// Batch retrieves a batch snapshot. Returns ErrNotFound if it does not exist.
func (s *Storage) Batch(id uint64) (*BatchRecord, error) {
	b := &BatchRecord{}
	if err := s.getArtifact(batchPrefix, idKey(id), b); err != nil {
		return nil, err
	}
	return b, nil
}

// PutConfig stores the current engine configuration.
func (s *Storage) PutConfig(c *ConfigRecord) error {
	return s.setArtifact(configPrefix, configKey, c)
}

// Config retrieves the stored engine configuration. Returns ErrNotFound if
// none has been stored yet.
func (s *Storage) Config() (*ConfigRecord, error) {
	c := &ConfigRecord{}
	if err := s.getArtifact(configPrefix, configKey, c); err != nil {
		return nil, err
	}
	return c, nil
}
