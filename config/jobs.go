package config

func (c *Config) runJobs() {
	c.scheduler.Every(1).Minute().SingletonMode().Do(c.updateParam)
	c.scheduler.Every(1).Minute().SingletonMode().Do(c.updateWhitelist)

	c.scheduler.StartAsync()
}

func (c *Config) updateParam() {
	param, err := c.wdb.GetParam()
	if err != nil {
		log.Error("c.wdb.GetParam()", "err", err)
		return
	}
	c.mu.Lock()
	c.param = param
	c.mu.Unlock()
}

func (c *Config) updateWhitelist() {
	items, err := c.wdb.GetAvailableWhitelist()
	if err != nil {
		log.Error("c.wdb.GetAvailableWhitelist()", "err", err)
		return
	}
	wl := make(map[string]struct{}, len(items))
	for _, it := range items {
		wl[it.Key] = struct{}{}
	}
	c.mu.Lock()
	c.whitelist = wl
	c.mu.Unlock()
}
