package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/schemakeep/schemakeep/internal/metadata"
)

// lookupKey treats a numeric path value as an id lookup and anything
// else as a name lookup, mirroring the catalog's key/value contract.
func lookupKey(value string) (metadata.Key, string) {
	if _, err := strconv.ParseInt(value, 10, 64); err == nil {
		return metadata.KeyID, value
	}
	return metadata.KeyName, value
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	return id, err == nil
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.catalog.Status(r.Context())
	if err != nil {
		catalogError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, st)
}

func (s *Server) handleListTables(w http.ResponseWriter, r *http.Request) {
	tables, err := s.catalog.Tables(r.Context())
	if err != nil {
		catalogError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, tables)
}

func (s *Server) handleAddTable(w http.ResponseWriter, r *http.Request) {
	var table metadata.Table
	if err := json.NewDecoder(r.Body).Decode(&table); err != nil {
		errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id, err := s.catalog.AddTable(r.Context(), &table)
	if err != nil {
		catalogError(w, err)
		return
	}
	jsonResponse(w, http.StatusCreated, IDResponse{ID: id})
}

func (s *Server) handleGetTable(w http.ResponseWriter, r *http.Request) {
	key, value := lookupKey(r.PathValue("key"))
	table, err := s.catalog.Table(r.Context(), key, value)
	if err != nil {
		catalogError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, table)
}

func (s *Server) handleUpdateTable(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		errorResponse(w, http.StatusBadRequest, "table id must be numeric")
		return
	}

	var table metadata.Table
	if err := json.NewDecoder(r.Body).Decode(&table); err != nil {
		errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.catalog.UpdateTable(r.Context(), id, &table); err != nil {
		catalogError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, IDResponse{ID: id})
}

func (s *Server) handleRemoveTable(w http.ResponseWriter, r *http.Request) {
	key, value := lookupKey(r.PathValue("key"))
	id, err := s.catalog.RemoveTable(r.Context(), key, value)
	if err != nil {
		catalogError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, IDResponse{ID: id})
}

func (s *Server) handleGetTableStatistic(w http.ResponseWriter, r *http.Request) {
	key, value := lookupKey(r.PathValue("key"))
	table, err := s.catalog.TableStatistic(r.Context(), key, value)
	if err != nil {
		catalogError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, table)
}

func (s *Server) handleSetTableStatistic(w http.ResponseWriter, r *http.Request) {
	key, value := lookupKey(r.PathValue("key"))

	var req TupleCountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id, err := s.catalog.SetTableStatistic(r.Context(), key, value, req.Tuples)
	if err != nil {
		catalogError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, IDResponse{ID: id})
}

func (s *Server) handleListColumnStatistics(w http.ResponseWriter, r *http.Request) {
	tableID, ok := pathID(r, "id")
	if !ok {
		errorResponse(w, http.StatusBadRequest, "table id must be numeric")
		return
	}

	stats, err := s.catalog.ColumnStatistics(r.Context(), tableID)
	if err != nil {
		catalogError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, stats)
}

func (s *Server) handleGetColumnStatistic(w http.ResponseWriter, r *http.Request) {
	tableID, ok := pathID(r, "id")
	if !ok {
		errorResponse(w, http.StatusBadRequest, "table id must be numeric")
		return
	}
	position, ok := pathID(r, "position")
	if !ok {
		errorResponse(w, http.StatusBadRequest, "ordinal position must be numeric")
		return
	}

	stat, err := s.catalog.ColumnStatistic(r.Context(), tableID, position)
	if err != nil {
		catalogError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, stat)
}

// handlePutColumnStatistic stores the request body as the opaque
// statistic blob of one column.
func (s *Server) handlePutColumnStatistic(w http.ResponseWriter, r *http.Request) {
	tableID, ok := pathID(r, "id")
	if !ok {
		errorResponse(w, http.StatusBadRequest, "table id must be numeric")
		return
	}
	position, ok := pathID(r, "position")
	if !ok {
		errorResponse(w, http.StatusBadRequest, "ordinal position must be numeric")
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		errorResponse(w, http.StatusBadRequest, "reading request body failed")
		return
	}
	if !json.Valid(body) {
		errorResponse(w, http.StatusBadRequest, "statistic payload must be valid JSON")
		return
	}

	stat := &metadata.ColumnStatistic{
		TableID:         tableID,
		OrdinalPosition: position,
		ColumnStatistic: body,
	}
	if err := s.catalog.PutColumnStatistic(r.Context(), stat); err != nil {
		catalogError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRemoveColumnStatistic(w http.ResponseWriter, r *http.Request) {
	tableID, ok := pathID(r, "id")
	if !ok {
		errorResponse(w, http.StatusBadRequest, "table id must be numeric")
		return
	}
	position, ok := pathID(r, "position")
	if !ok {
		errorResponse(w, http.StatusBadRequest, "ordinal position must be numeric")
		return
	}

	if err := s.catalog.RemoveColumnStatistic(r.Context(), tableID, position); err != nil {
		catalogError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRemoveColumnStatistics(w http.ResponseWriter, r *http.Request) {
	tableID, ok := pathID(r, "id")
	if !ok {
		errorResponse(w, http.StatusBadRequest, "table id must be numeric")
		return
	}

	if err := s.catalog.RemoveColumnStatistics(r.Context(), tableID); err != nil {
		catalogError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListIndexes(w http.ResponseWriter, r *http.Request) {
	indexes, err := s.catalog.Indexes(r.Context())
	if err != nil {
		catalogError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, indexes)
}

func (s *Server) handleAddIndex(w http.ResponseWriter, r *http.Request) {
	var index metadata.Index
	if err := json.NewDecoder(r.Body).Decode(&index); err != nil {
		errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id, err := s.catalog.AddIndex(r.Context(), &index)
	if err != nil {
		catalogError(w, err)
		return
	}
	jsonResponse(w, http.StatusCreated, IDResponse{ID: id})
}

func (s *Server) handleGetIndex(w http.ResponseWriter, r *http.Request) {
	key, value := lookupKey(r.PathValue("key"))
	index, err := s.catalog.Index(r.Context(), key, value)
	if err != nil {
		catalogError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, index)
}

func (s *Server) handleUpdateIndex(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		errorResponse(w, http.StatusBadRequest, "index id must be numeric")
		return
	}

	var index metadata.Index
	if err := json.NewDecoder(r.Body).Decode(&index); err != nil {
		errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.catalog.UpdateIndex(r.Context(), id, &index); err != nil {
		catalogError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, IDResponse{ID: id})
}

func (s *Server) handleRemoveIndex(w http.ResponseWriter, r *http.Request) {
	key, value := lookupKey(r.PathValue("key"))
	id, err := s.catalog.RemoveIndex(r.Context(), key, value)
	if err != nil {
		catalogError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, IDResponse{ID: id})
}

func (s *Server) handleListDataTypes(w http.ResponseWriter, r *http.Request) {
	types, err := s.catalog.DataTypes(r.Context())
	if err != nil {
		catalogError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, types)
}

func (s *Server) handleGetDataType(w http.ResponseWriter, r *http.Request) {
	key, value := lookupKey(r.PathValue("key"))
	dt, err := s.catalog.DataType(r.Context(), key, value)
	if err != nil {
		catalogError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, dt)
}
