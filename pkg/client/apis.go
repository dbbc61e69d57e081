package client

import (
	"encoding/json"
	"net/url"
	"strconv"

	pkgerrors "github.com/pkg/errors"

	"github.com/servokit/servod/pkg/calibration"
	"github.com/servokit/servod/pkg/config"
	"github.com/servokit/servod/pkg/servo"
	"github.com/servokit/servod/pkg/types"
)

func servoPath(name string, rest string) string {
	return "/servos/" + url.PathEscape(name) + rest
}

func decodeJSON[T any](ret string, what string) (*T, error) {
	var v T
	if err := json.Unmarshal([]byte(ret), &v); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal %s", what)
	}
	return &v, nil
}

func (c *Client) ListServos() ([]servo.Status, error) {
	ret, err := c.Get("/servos")
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to list servos")
	}
	list, err := decodeJSON[[]servo.Status](ret, "servo list")
	if err != nil {
		return nil, err
	}
	return *list, nil
}

func (c *Client) GetServo(name string) (*servo.Status, error) {
	ret, err := c.Get(servoPath(name, ""))
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to get servo %s", name)
	}
	return decodeJSON[servo.Status](ret, "servo status")
}

// command sends a servo command and decodes the resulting status.
func (c *Client) command(method, path, data string) (*servo.Status, error) {
	ret, err := c.Send(method, path, data)
	if err != nil {
		return nil, err
	}
	return decodeJSON[servo.Status](ret, "servo status")
}

func (c *Client) SetValue(name string, v float64) (*servo.Status, error) {
	return c.command("PUT", servoPath(name, "/value"), strconv.FormatFloat(v, 'g', -1, 64))
}

func (c *Client) SetPulse(name string, p float64) (*servo.Status, error) {
	return c.command("PUT", servoPath(name, "/pulse"), strconv.FormatFloat(p, 'g', -1, 64))
}

func (c *Client) SetPercent(name string, req types.PercentRequest) (*servo.Status, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	return c.command("PUT", servoPath(name, "/percent"), string(payload))
}

func (c *Client) Enable(name string) (*servo.Status, error) {
	return c.command("POST", servoPath(name, "/enable"), "")
}

func (c *Client) Disable(name string) (*servo.Status, error) {
	return c.command("POST", servoPath(name, "/disable"), "")
}

func (c *Client) ToMin(name string) (*servo.Status, error) {
	return c.command("POST", servoPath(name, "/min"), "")
}

func (c *Client) ToMid(name string) (*servo.Status, error) {
	return c.command("POST", servoPath(name, "/mid"), "")
}

func (c *Client) ToMax(name string) (*servo.Status, error) {
	return c.command("POST", servoPath(name, "/max"), "")
}

// ===== Calibration APIs =====

func (c *Client) GetCalibration(name string) (*config.CalibrationConfig, error) {
	ret, err := c.Get(servoPath(name, "/calibration"))
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to get calibration of %s", name)
	}
	return decodeJSON[config.CalibrationConfig](ret, "calibration")
}

func (c *Client) calibrate(method, path string, body any) (*config.CalibrationConfig, error) {
	data := ""
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		data = string(payload)
	}
	ret, err := c.Send(method, path, data)
	if err != nil {
		return nil, err
	}
	return decodeJSON[config.CalibrationConfig](ret, "calibration")
}

func (c *Client) SetCalibration(name string, cc config.CalibrationConfig) (*config.CalibrationConfig, error) {
	return c.calibrate("PUT", servoPath(name, "/calibration"), cc)
}

func (c *Client) SetCalibrationPoint(name string, i int, p calibration.Point) (*config.CalibrationConfig, error) {
	return c.calibrate("PUT", servoPath(name, "/calibration/points/"+strconv.Itoa(i)), p)
}

func (c *Client) SetUniformCalibration(name string, req types.UniformRequest) (*config.CalibrationConfig, error) {
	return c.calibrate("POST", servoPath(name, "/calibration/uniform"), req)
}

func (c *Client) SetDefaultCalibration(name string) (*config.CalibrationConfig, error) {
	return c.calibrate("POST", servoPath(name, "/calibration/default"), nil)
}

func (c *Client) SetLimits(name string, lower, upper bool) (*config.CalibrationConfig, error) {
	return c.calibrate("PUT", servoPath(name, "/limits"), types.LimitsRequest{Lower: lower, Upper: upper})
}

// ===== Daemon APIs =====

func (c *Client) GetConfig() (*config.RawFileConfig, error) {
	ret, err := c.Get("/config")
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to get config")
	}
	return decodeJSON[config.RawFileConfig](ret, "config")
}

func (c *Client) GetVersion() (string, error) {
	ret, err := c.Get("/version")
	if err != nil {
		return "", pkgerrors.Wrapf(err, "failed to get version")
	}
	v, err := decodeJSON[string](ret, "version")
	if err != nil {
		return "", err
	}
	return *v, nil
}

func (c *Client) GetSchedules() ([]types.ScheduleStatus, error) {
	ret, err := c.Get("/schedules")
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to get schedules")
	}
	list, err := decodeJSON[[]types.ScheduleStatus](ret, "schedules")
	if err != nil {
		return nil, err
	}
	return *list, nil
}

func (c *Client) SkipSchedule(i int) error {
	_, err := c.Post("/schedules/"+strconv.Itoa(i)+"/skip", "")
	return err
}
