package httpapi

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"beidao-data/internal/domain"
	"beidao-data/internal/service"

	"github.com/xuri/excelize/v2"
)

// deviceExportHeader 设备导出表头
var deviceExportHeader = []string{
	"ID",
	"MAC Address",
	"Device Type",
	"Name",
	"Firmware Version",
	"User ID",
	"Paired Device ID",
	"Online",
	"Last Seen",
	"Created At",
}

// ExportDevices GET /api/v1/devices/export（管理端，复用列表过滤参数）
func (h *DeviceHandler) ExportDevices(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	resp, err := h.deviceService.ListDevices(r.Context(), service.ListDevicesRequest{
		DeviceType: q.Get("device_type"),
		UserID:     int64(parseInt(q.Get("user_id"), 0)),
		Search:     q.Get("search"),
		Page:       1,
		Size:       10000,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	data, err := generateDeviceExcel(resp.Items)
	if err != nil {
		writeError(w, err)
		return
	}

	filename := fmt.Sprintf("devices_%s.xlsx", time.Now().Format("20060102_150405"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	_, _ = w.Write(data)
}

// generateDeviceExcel 生成设备导出 Excel 文件
func generateDeviceExcel(devices []*domain.Device) ([]byte, error) {
	f := excelize.NewFile()
	// 注意：WriteTo 之前不能 Close

	sheetName := "Devices"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for col, header := range deviceExportHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(sheetName, cell, cell, headerStyle); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header style: %w", err)
		}
	}

	columnWidths := []float64{8, 20, 13, 20, 17, 10, 16, 8, 20, 20}
	for i := range deviceExportHeader {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert column number: %w", err)
		}
		if err := f.SetColWidth(sheetName, col, col, columnWidths[i]); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}

	for rowIdx, d := range devices {
		row := rowIdx + 2
		values := []any{
			d.ID,
			d.MACAddress,
			d.DeviceType,
			d.Name,
			d.FirmwareVersion,
			nullableInt(d.UserID.Valid, d.UserID.Int64),
			nullableInt(d.PairedDeviceID.Valid, d.PairedDeviceID.Int64),
			boolLabel(d.IsOnline),
			nullableTime(d.LastSeenAt.Valid, d.LastSeenAt.Time),
			d.CreatedAt.Format("2006-01-02 15:04:05"),
		}
		for col, value := range values {
			if value == nil {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to convert coordinates: %w", err)
			}
			if err := f.SetCellValue(sheetName, cell, value); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to set cell %s: %w", cell, err)
			}
		}
	}

	// 冻结表头
	if err := f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to freeze panes: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write excel: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close excel file: %w", err)
	}
	return buf.Bytes(), nil
}

func nullableInt(valid bool, v int64) any {
	if !valid {
		return nil
	}
	return v
}

func nullableTime(valid bool, t time.Time) any {
	if !valid {
		return nil
	}
	return t.Format("2006-01-02 15:04:05")
}

func boolLabel(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
