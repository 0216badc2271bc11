package stealth

// initScript is injected before every document loads. It patches the
// navigator surface that detection scripts probe first:
//
//  1. navigator.webdriver — set by automation tooling, the most common
//     check.
//  2. navigator.plugins — headless browsers report an empty list; real
//     Chrome ships a PDF viewer.
//  3. navigator.languages — must be a plausible non-empty list.
//  4. permissions.query — the notifications permission answers
//     inconsistently with Notification.permission under automation.
//
// Each patch is individually guarded so one failing API (common on
// about:blank) does not break the rest.
const initScript = `
(() => {
    'use strict';

    if (window.__vigilStealth) {
        return;
    }
    window.__vigilStealth = true;

    try {
        Object.defineProperty(navigator, 'webdriver', {
            get: () => undefined,
            configurable: true
        });
    } catch (e) {}

    try {
        Object.defineProperty(navigator, 'plugins', {
            get: () => {
                const plugins = [
                    { name: 'Chrome PDF Plugin', filename: 'internal-pdf-viewer', description: 'Portable Document Format' },
                    { name: 'Chrome PDF Viewer', filename: 'mhjfbmdgcfjbbpaeojofohoefgiehjai', description: '' },
                    { name: 'Native Client', filename: 'internal-nacl-plugin', description: '' }
                ];
                plugins.item = (index) => plugins[index] || null;
                plugins.namedItem = (name) => plugins.find(p => p.name === name) || null;
                plugins.refresh = () => {};
                return plugins;
            },
            configurable: true
        });
    } catch (e) {}

    try {
        Object.defineProperty(navigator, 'languages', {
            get: () => ['en-US', 'en'],
            configurable: true
        });
    } catch (e) {}

    try {
        if (window.navigator.permissions && window.navigator.permissions.query) {
            const originalQuery = window.navigator.permissions.query.bind(window.navigator.permissions);
            window.navigator.permissions.query = (parameters) => {
                if (parameters && parameters.name === 'notifications') {
                    return Promise.resolve({
                        state: typeof Notification !== 'undefined' ? Notification.permission : 'default',
                        onchange: null
                    });
                }
                return originalQuery(parameters);
            };
        }
    } catch (e) {}
})();
`
