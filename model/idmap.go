package model

import "encoding/json"

// IdMapping mantiene la biiezione tra slug DSL e UUID persistiti.
// Le due direzioni vengono mutate solo insieme: una entry stale
// è un dangling reference, non un problema di visualizzazione.
type IdMapping struct {
	dslToDb map[string]string
	dbToDsl map[string]string
}

// NewIdMapping crea una mappa vuota
func NewIdMapping() *IdMapping {
	return &IdMapping{
		dslToDb: make(map[string]string),
		dbToDsl: make(map[string]string),
	}
}

// Put registra la coppia slug↔uuid rimuovendo eventuali entry stale
func (m *IdMapping) Put(dslID, dbID string) {
	if old, ok := m.dslToDb[dslID]; ok {
		delete(m.dbToDsl, old)
	}
	if old, ok := m.dbToDsl[dbID]; ok {
		delete(m.dslToDb, old)
	}
	m.dslToDb[dslID] = dbID
	m.dbToDsl[dbID] = dslID
}

// Db risolve uno slug DSL in UUID
func (m *IdMapping) Db(dslID string) (string, bool) {
	id, ok := m.dslToDb[dslID]
	return id, ok
}

// Dsl risolve un UUID in slug DSL
func (m *IdMapping) Dsl(dbID string) (string, bool) {
	id, ok := m.dbToDsl[dbID]
	return id, ok
}

// DeleteByDsl rimuove la coppia a partire dallo slug
func (m *IdMapping) DeleteByDsl(dslID string) {
	if dbID, ok := m.dslToDb[dslID]; ok {
		delete(m.dbToDsl, dbID)
	}
	delete(m.dslToDb, dslID)
}

// DeleteByDb rimuove la coppia a partire dall'UUID
func (m *IdMapping) DeleteByDb(dbID string) {
	if dslID, ok := m.dbToDsl[dbID]; ok {
		delete(m.dslToDb, dslID)
	}
	delete(m.dbToDsl, dbID)
}

// Len restituisce il numero di coppie registrate
func (m *IdMapping) Len() int {
	return len(m.dslToDb)
}

// Clone crea una copia indipendente della mappa
func (m *IdMapping) Clone() *IdMapping {
	clone := NewIdMapping()
	for dsl, db := range m.dslToDb {
		clone.dslToDb[dsl] = db
		clone.dbToDsl[db] = dsl
	}
	return clone
}

// idMappingJSON forma serializzata della mappa
type idMappingJSON struct {
	DslToDb map[string]string `json:"dsl_to_db"`
	DbToDsl map[string]string `json:"db_to_dsl"`
}

// MarshalJSON serializza entrambe le direzioni
func (m *IdMapping) MarshalJSON() ([]byte, error) {
	return json.Marshal(idMappingJSON{
		DslToDb: m.dslToDb,
		DbToDsl: m.dbToDsl,
	})
}

// UnmarshalJSON ricostruisce la biiezione dalla direzione dsl→db
func (m *IdMapping) UnmarshalJSON(data []byte) error {
	var raw idMappingJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	m.dslToDb = make(map[string]string)
	m.dbToDsl = make(map[string]string)
	for dsl, db := range raw.DslToDb {
		m.Put(dsl, db)
	}
	return nil
}
