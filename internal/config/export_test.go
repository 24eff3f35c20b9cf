package config

// Current returns the settings currently held in memory.
func (cm *Manager) Current() Conf {
	cm.lock.RLock()
	defer cm.lock.RUnlock()
	return cm.config
}
